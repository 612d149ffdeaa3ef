// Package confloader loads layered configuration with koanf.
//
// Sources, later ones overriding earlier ones:
//
//  1. Defaults held by the target struct
//  2. A YAML file
//  3. .env files (joho/godotenv), prefixed keys only
//  4. Process environment, prefixed keys only
//  5. Explicit maps (command-line flags)
//
// Environment keys map to config keys by dropping the prefix, lowering the
// case and turning the first underscore into a dot:
// KASB_API_BASE_URL becomes api.base_url.
//
// Watcher reports changes to watched files via fsnotify.
package confloader
