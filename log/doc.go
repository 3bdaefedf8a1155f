// Package log provides a leveled structured logger built on [log/slog].
//
// Configuration is immutable and applied at creation time using functional
// options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithTimeLayout("Kitchen"),
//		log.WithCaller(true))
//
//	logger.Info("script loaded", slog.String("path", path))
//
// [Logger.Wrap] derives a reconfigured logger and [Logger.With] attaches
// attributes to every subsequent message.
//
// # Levels
//
// In addition to the [log/slog] levels, [LevelTrace] sits below
// [LevelDebug] and is used for per-binding diagnostics. The zero [Logger]
// discards everything.
//
// # Output
//
// [FormatText] (default) and [FormatJSON] are supported. [WithPretty]
// enables styled terminal output: colorized key=value text, or indented
// JSON. Styling degrades to plain text when the writer is not a terminal.
//
// # Default logger
//
// Package-level functions such as [Info] log through a default logger
// writing to [os.Stderr], which [Config] reconfigures. Context-unaware
// functions use [DefaultContextProvider].
package log
