// Package app composes the food ordering services into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring and lifecycle
//	├── domain/             # Plain data types: catalog, order, identity, session, announcement
//	├── storage/            # Store interfaces plus memory, postgres and redis backends
//	├── services/           # Business rules: accounts, catalog, orders, announcements, stats, feed, janitor
//	├── httpapi/            # REST and websocket handlers
//	├── auth/               # Session cookies, bearer tokens and Google SSO
//	├── system/             # Lifecycle manager for background services
//	├── metrics/            # Prometheus collectors
//	└── runtime/            # Builds everything from config and runs the HTTP server
//
// # Adding a New Domain
//
//  1. Create the model in internal/app/domain/<name>/
//  2. Add a store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/memory and storage/postgres, with a migration
//  4. Write the service in internal/app/services/<name>/
//  5. Wire it in application.go and expose it from httpapi
package app
