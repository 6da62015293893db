// Package db holds the embedded database schema.
package db

import _ "embed"

// Schema contains the DDL for the products, promotions, coupons, orders and
// api_keys tables. The statements are idempotent and run on every startup.
//
//go:embed migrations/001_schema.sql
var Schema string
