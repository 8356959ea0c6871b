// Package xconf 加载 xshield 的配置文件，基于 koanf。
//
// 支持 YAML（.yaml/.yml）和 JSON（.json），也可以通过 NewFromBytes 从内存加载
// （如 K8s ConfigMap 挂载内容）。Reload 原子替换底层 koanf 实例，
// 并发读者看到的要么是旧配置，要么是新配置。
//
// 类型化的配置入口是 Settings：
//
//	cfg, err := xconf.New("/etc/xshield/config.yaml")
//	if err != nil { ... }
//	s, err := xconf.LoadSettings(cfg)
//	if err != nil { ... }
//	store := redis.NewClient(s.Redis.Options())
//	opts, err := s.Cache.Options()
//
// Watch 基于 fsnotify 监视配置文件所在目录，带防抖，兼容编辑器的
// rename 原子写入。Watcher.Run 阻塞直到 ctx 取消或 Stop，可以直接交给 xrun 管理。
package xconf
