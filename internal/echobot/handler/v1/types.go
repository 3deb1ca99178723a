package v1

import "github.com/kiosk404/echobot/internal/echobot/service/plugin"

type HealthResponse struct {
	State   string `json:"state"`
	Plugins int    `json:"plugins"`
}

type PluginObject struct {
	Order int `json:"order"`
	plugin.Metadata
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
