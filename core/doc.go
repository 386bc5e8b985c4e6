// Package core contains the shared contracts of the QR sync pipeline: record
// references, upload sessions, transport and inbound shapes, the error
// taxonomy, configuration and logging helpers. Adapters depend on core; core
// must not depend on the store client, transport or webhook packages.
package core
