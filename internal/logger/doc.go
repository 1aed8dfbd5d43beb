// Package logger wraps zap with a global sugared logger, a console encoder,
// context helpers (ToContext/FromContext/WithName/WithKV) and leveled
// convenience functions.
//
// Services accept a context and log through it, so a component name attached
// once with WithName follows every message of that component.
package logger
