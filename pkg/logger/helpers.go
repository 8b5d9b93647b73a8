package logger

// LogDownload logs the outcome of a single image download job
func LogDownload(url, filePath string, success bool, err error) {
	fields := map[string]interface{}{
		"url":     url,
		"path":    filePath,
		"success": success,
	}

	logger := GetLogger().WithFields(fields)

	if err != nil {
		logger.WithError(err).Error("Download failed")
	} else if success {
		logger.Info("Download completed")
	} else {
		logger.Warn("Download skipped")
	}
}

// LogDiscovery logs newly discovered illustrations for a source stream
func LogDiscovery(source string, discovered int) {
	GetLogger().WithFields(map[string]interface{}{
		"source":     source,
		"discovered": discovered,
	}).Info("Discovered new illusts")
}

// LogRateLimit logs rate limiting events
func LogRateLimit(endpoint string, retryAfter int) {
	GetLogger().WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"retry_after": retryAfter,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}
