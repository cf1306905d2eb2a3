// Package config loads the configuration of the vango-live server.
//
// The configuration is stored in vango-live.json, vango-live.yaml or
// vango-live.yml in the working directory. JSON takes precedence.
//
// # Configuration File Structure
//
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	  wsPath: /ws
//	  shutdownTimeout: 10s
//	session:
//	  readTimeout: 60s
//	  heartbeatInterval: 30s
//	  eventRate: 100
//	  eventBurst: 50
//	  incrementalPatches: true
//	metrics:
//	  enabled: true
//	  namespace: vango
//	tracing:
//	  enabled: false
//	log:
//	  level: info
//	  format: text
//
// The VANGO_LIVE_PORT and VANGO_LIVE_HOST environment variables override the
// listen address.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
