// Package config loads zoomscribe configuration from the environment.
//
// Credentials for Zoom server-to-server OAuth are read from ZOOM_ACCOUNT_ID,
// ZOOM_CLIENT_ID and ZOOM_CLIENT_SECRET. A dotenv file may be preloaded with
// godotenv; values already set in the environment always win. All missing
// credential variables are reported in a single error.
//
// Credential values never appear unmasked in String output or logs.
package config
