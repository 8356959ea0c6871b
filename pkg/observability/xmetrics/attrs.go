package xmetrics

import "time"

// 以下构造函数只是给 Attr 字面量起名字，方便在调用处按类型书写。

func String(key, value string) Attr { return Attr{key, value} }
func Bool(key string, value bool) Attr { return Attr{key, value} }
func Int(key string, value int) Attr { return Attr{key, value} }
func Int64(key string, value int64) Attr { return Attr{key, value} }
func Float64(key string, value float64) Attr { return Attr{key, value} }

// Duration 在 OTel 中以毫秒记录，key 建议带单位，如 "timeout_ms"。
func Duration(key string, value time.Duration) Attr { return Attr{key, value} }

// Any 非基础类型按 fmt.Sprint 的结果记录。
func Any(key string, value any) Attr { return Attr{key, value} }
