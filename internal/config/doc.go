// Package config loads masterkey settings.
//
// Settings come from built-in defaults, an optional settings file
// (masterkey.yaml, masterkey.toml or masterkey.json in the working
// directory or the user config directory), MASTERKEY_* environment
// variables and command-line flags, later sources overriding earlier
// ones. Live reload of the binding specification is handled by the
// watcher subpackage.
package config
