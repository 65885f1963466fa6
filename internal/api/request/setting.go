package request

// UpdateSettingRequest is the payload for setting a configuration value.
type UpdateSettingRequest struct {
	Value string `json:"value"`
}
