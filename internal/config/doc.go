// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads hlsladder configuration with precedence
// ENV > YAML file > defaults and supports hot reload of the YAML file.
package config
