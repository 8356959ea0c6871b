// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xcache: 两级缓存服务（进程内 L1 + Redis L2），支持版本号失效和跨实例失效广播
//
// xcache.Service 同时实现 xprovider 的 Cache 接口，可直接作为 provider 结果缓存使用。
package storage
