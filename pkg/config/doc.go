// Package config holds the run configuration of spotify-dataset.
//
// Values are resolved in this order, later sources winning:
//
//   - built-in defaults (Default)
//   - an optional YAML file, with ${VAR_NAME} references replaced from the environment
//   - SPOTIFY_ prefixed environment variables, nested keys joined by "_"
//     (SPOTIFY_DATA_DIR, SPOTIFY_REGISTRY_CACHE_DIR)
//   - command line flags bound with BindFlags
//
// # Usage
//
//	cfg, err := config.Load(config.Options{File: "spotify.yaml", Flags: cmd.Flags()})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Example file
//
//	data_dir: ./data
//	format: parquet
//	compression: zstd
//	log:
//	  level: debug
//	registry:
//	  username: ${KAGGLE_USERNAME}
//	  key: ${KAGGLE_KEY}
//	  timeout: 1m
package config
