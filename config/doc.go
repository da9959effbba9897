// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config loads process configuration for the vaultimport command.
//
// Values are resolved in three layers, each overriding the one before:
// built-in defaults, an optional YAML file, and VAULTIMPORT_* environment
// variables. Command-line flags are applied on top by the caller.
//
// The default file lives at $XDG_CONFIG_HOME/vaultimport/config.yaml and the
// default database under $XDG_DATA_HOME/vaultimport. The master secret is
// only ever read from the environment.
package config
