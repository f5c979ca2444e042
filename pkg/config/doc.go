// Package config loads typed configuration structs from environment
// variables.
//
// Every component in this module carries its own Config struct with `env`
// and `envDefault` tags; this package is the single place that parses them,
// so deployment stays file-free and credentials flow through the environment
// or a secret manager.
//
//	var (
//		connCfg  tenantconn.Config
//		cacheCfg tieredcache.Config
//		redisCfg redis.Config
//	)
//	config.MustLoad(&connCfg)
//	config.MustLoad(&cacheCfg)
//	config.MustLoad(&redisCfg)
//
// A .env file in the working directory is read once per process as a
// development convenience; real environments set variables directly.
package config
