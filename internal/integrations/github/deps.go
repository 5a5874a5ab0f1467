package github

import (
	"feedbackapi/internal/config"
	"feedbackapi/internal/httpx"
)

type Config = config.Config

var externalHTTPClient = httpx.ExternalHTTPClient()
