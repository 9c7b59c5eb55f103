package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubNotifyWithoutConnections(t *testing.T) {
	hub := NewHub(nil)

	err := hub.Notify("nobody-home", map[string]string{"title": "hi"})
	assert.Error(t, err)
	assert.Zero(t, hub.ConnectionCount("nobody-home"))
}

func TestHubIsSingleton(t *testing.T) {
	assert.Same(t, NewHub(nil), NewHub(nil))
}
