// Package builderr defines the failure taxonomy shared by the build pipeline.
//
// Every error that can end a build attempt is one of four kinds: a security
// violation raised by the pre-flight screen, a build failure (a phase command
// exited non-zero), a timeout (a phase command outlived its bound), or an
// infrastructure error (runtime, storage, queue or repository misbehaved).
// The worker maps all four onto a BUILD_FAILED deployment.
//
// Usage:
//
//	if builderr.Is(err, builderr.KindTimeout) {
//	    logger.Warn("phase timed out", zap.Error(err))
//	}
package builderr
