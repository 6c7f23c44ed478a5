// Package config provides configuration parsing for the sharedstore command.
//
// The configuration is stored in sharedstore.json. This package handles
// loading, saving, and validating it. Fields missing from the file keep
// their defaults.
//
// # Configuration File Structure
//
//	{
//	  "name": "orders",
//	  "store": {
//	    "changePolicy": "writes",
//	    "initial": {"clicked": false}
//	  },
//	  "inspector": {
//	    "enabled": true,
//	    "host": "localhost",
//	    "port": 7070
//	  },
//	  "log": {"level": "info", "format": "text"},
//	  "metrics": {"enabled": true, "namespace": "sharedstore"},
//	  "tracing": {"enabled": false, "tracerName": "sharedstore"}
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Inspector:", cfg.InspectorURL())
package config
