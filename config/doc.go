// Package config loads memflow configuration.
//
// Precedence is fixed: built-in defaults, then the YAML file (if any),
// then environment variables with the MEMFLOW prefix. A missing config
// file is not an error; the defaults plus environment are enough to run
// against a local backend.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("memflow.yaml").
//	    Load()
//
// Environment keys follow the struct nesting, e.g.
// MEMFLOW_BACKEND_BASE_URL or MEMFLOW_ENGINE_BATCH_SIZE.
package config
