// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Design Decisions
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context Scoping: cada request lleva su logger "scoped" con campos
//     adicionales (request_id, provider_id, etc.) sin crear un nuevo core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Levels: debug, info, warn, error (configurable via LOG_LEVEL).
//
// # Usage
//
// Inicialización (una vez en main.go, con la config ya cargada):
//
//	logger.Init(logger.Config{
//	    Env:         cfg.App.Env,      // "dev" o "prod"
//	    Level:       cfg.App.LogLevel, // "debug", "info", "warn", "error"
//	    ServiceName: "janus",
//	})
//	defer logger.Sync()
//
// En handlers/pipeline (con contexto):
//
//	log := logger.From(ctx)
//	log.Info("session refreshed", logger.ProviderID(pid))
//
// Sin contexto (fallback al singleton):
//
//	logger.L().Info("gateway started")
package logger
