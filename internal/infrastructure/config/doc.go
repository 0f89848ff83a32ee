// Package config handles loading and validating graydb configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with GRAYDB_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Database URLs may carry passwords or tokens; prefer GRAYDB_DATABASE_URL
//     over the config file and never log the raw value
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Database.Pool.MaxOpen)
package config
