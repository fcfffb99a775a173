// Package config provides configuration parsing for qstate tooling.
//
// The configuration is stored in qstate.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "dev": true,
//	  "logLevel": "info",
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "qstate",
//	    "subsystem": ""
//	  },
//	  "tracing": {
//	    "enabled": false,
//	    "tracerName": "qstate"
//	  },
//	  "server": {
//	    "host": "localhost",
//	    "port": 7070
//	  },
//	  "limits": {
//	    "maxScriptOps": 10000
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c := qobject.NewContainer(cfg.ContainerOptions(cfg.Logger(os.Stderr))...)
package config
