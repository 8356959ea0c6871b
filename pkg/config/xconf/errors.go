package xconf

import "errors"

var (
	// ErrEmptyPath 配置文件路径为空。
	ErrEmptyPath = errors.New("xconf: empty config path")

	// ErrUnsupportedFormat 不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xconf: unsupported config format")

	// ErrLoadFailed 读取配置文件失败。
	ErrLoadFailed = errors.New("xconf: failed to load config")

	// ErrParseFailed 解析配置内容失败。
	ErrParseFailed = errors.New("xconf: failed to parse config")

	// ErrUnmarshalFailed 反序列化失败。
	ErrUnmarshalFailed = errors.New("xconf: failed to unmarshal config")

	// ErrNotReloadable 从字节创建的配置不能重载或监视。
	ErrNotReloadable = errors.New("xconf: config created from bytes cannot be reloaded")

	// ErrWatcherRunning Watcher.Run 被重复调用。
	ErrWatcherRunning = errors.New("xconf: watcher already running")

	// ErrInvalidSettings Settings 校验失败。
	ErrInvalidSettings = errors.New("xconf: invalid settings")
)
