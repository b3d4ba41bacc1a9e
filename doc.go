// Package auth manages the token and session lifecycle of an account: JWT
// issuance and verification, refresh token rotation, revocation and the
// credential flows built on top of them.
//
// Tokens:
//   - TokenService mints access, refresh, password reset and email
//     verification tokens. Each purpose has its own claim shape and the
//     refresh key is distinct from the access key.
//   - TokenValidator verifies a token for an expected purpose and reports a
//     VerifyResult with a machine readable Reason instead of an error.
//
// Sessions:
//   - Every refresh token handed out is a SessionEntry on its principal. At
//     most Config.MaxSessions entries are kept; the oldest is evicted and
//     revoked when a new one is added.
//   - Refresh consumes the presented token, so a refresh token works once.
//     Password reset tokens are claimed through RevocationRegistry.Claim
//     before the password is written, so concurrent resets cannot both land.
//
// HTTP:
//   - Middleware authenticates go-router requests, the Require* guards
//     enforce roles and ownership, and RegisterAuthRoutes mounts the JSON
//     endpoints. NewErrorHandler renders every error on the fiber app that
//     backs the router.
//
// Persistence lives behind the Store and RevocationRegistry interfaces.
// MemoryStore and MemoryRevocationRegistry run in process, the repository
// subpackage stores both in SQL through bun, and RedisRevocationRegistry
// shares revocations across instances.
package auth
