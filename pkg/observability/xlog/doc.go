// Package xlog 基于 log/slog 的结构化日志库，供 xshield 各组件统一使用。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、文件轮转）
//   - 强制 context 传递，自动注入 context 中携带的调用字段（provider、method 等）
//   - 动态级别调整（运行时热更新）
//   - 全局 Logger 便利函数
//
// # 创建 Logger
//
// Builder 为 first-error-wins：遇到第一个配置错误后，Build 返回该错误。
//
//	logger, cleanup, err := xlog.New().
//	    SetLevelString("debug").
//	    SetFormat("json").
//	    SetRotation("/var/log/xshield/app.log").
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
// # 调用字段
//
// [ContextWith] 把属性挂到 context 上，之后所有使用该 context 的日志都会带上这些属性：
//
//	ctx = xlog.ContextWith(ctx, xlog.Provider("payments"), xlog.Method("createOrder"))
//	logger.Warn(ctx, "fallback used") // 自动附加 provider=payments method=createOrder
//
// # 全局 Logger
//
// [Default] 惰性初始化（stderr、Info、text）。服务端推荐依赖注入（各组件的 WithLogger 选项）。
package xlog
