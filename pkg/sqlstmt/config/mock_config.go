package config

// MockConfig serves values from a map. It is meant for tests.
type MockConfig struct {
	conf map[string]string
}

func NewMockConfig(configMap map[string]string) *MockConfig {
	return &MockConfig{conf: configMap}
}

func (m *MockConfig) Get(key string) string {
	return m.conf[key]
}

func (m *MockConfig) GetOrDefault(key, defaultValue string) string {
	if v, ok := m.conf[key]; ok && v != "" {
		return v
	}

	return defaultValue
}
