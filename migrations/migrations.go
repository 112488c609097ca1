// Package migrations встраивает SQL-схему postgres-хранилища в бинарник.
package migrations

import _ "embed"

// InitUp — создание таблицы guest_messages и индексов (идемпотентно).
//
//go:embed 1_init_guest_messages.up.sql
var InitUp string

// InitDown — откат InitUp.
//
//go:embed 1_init_guest_messages.down.sql
var InitDown string
