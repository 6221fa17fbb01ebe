// Package config handles loading and validating poolbridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (POOLBRIDGE_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The pool API key and broker credentials should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.PollInterval())
package config
