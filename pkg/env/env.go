package env

import "os"

const prefix = "ANGELS_"

// Get returns ANGELS_<key>, then <key>, then fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(prefix + key); val != "" {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// InstanceID names the running process in logs. Cloud Run and Heroku set their own ids.
func InstanceID() string {
	for _, key := range []string{"WORKER_ID", "K_REVISION", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
