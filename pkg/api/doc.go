// Package api provides the HTTP JSON API of the back office.
//
// The API is built on gorilla/mux and organized into handler groups, each
// registering its own routes:
//
//   - AuthHandlers: login, refresh, logout and the caller's permissions and menus
//   - MenuHandlers: menu CRUD, tree listing and batch operations
//   - DeptHandlers: department CRUD, tree listing and batch operations
//   - RoleHandlers: roles, role menus and user role assignments
//
// Admin routes are gated by permission key (menu:edit, role:assign, ...)
// through Dependencies.Permissions; a caller without the key gets a 403.
// The /auth/me routes need authentication only.
//
// NewServer wires them behind the common middleware chain:
//
//	server := api.NewServer(api.Dependencies{...})
//	http.ListenAndServe(":8080", server)
//
// All errors go through writeError, which maps credential and token errors
// to 401, tree validation errors to 400, missing resources to 404 and an
// unreachable revocation store to 503. Anything else is a 500 with a generic
// message.
package api
