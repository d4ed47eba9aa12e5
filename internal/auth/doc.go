// Package auth identifies callers and decides what they may do.
//
// Two modes are supported:
//   - "none": no login. Every caller is anonymous at AUTH_DEFAULT_TIER.
//   - "local": users live in the local database and log in through
//     POST /api/auth/login; the session cookie carries the login.
//
// Browsing is never blocked. Privileged actions, such as overriding a cover,
// ask Capabilities, which compares the caller's tier with
// AUTH_OVERRIDE_TIER.
//
// # Configuration
//
//	AUTH_MODE=local
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # Auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_BCRYPT_COST=12
//	AUTH_SECURE_COOKIES=true
//	AUTH_OVERRIDE_TIER=2
//
// # Usage
//
//	sm, _ := auth.NewSessionManager(sqlDB, cfg.Auth)
//	router.Use(sm.SessionLoadSave(), auth.NewMiddleware(svc, sm, cfg.Auth).Handler())
//	caps := auth.NewCapabilities(cfg.Auth.OverrideTier, cfg.Auth.DefaultTier)
//	caps.CanOverrideCovers(c.Request.Context())
package auth
