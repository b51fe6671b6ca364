package services

import (
	"testing"

	"hamsterhub/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestParseIDSet(t *testing.T) {
	ids := ParseIDSet(" 111,222 ,\n333\t, ,")
	assert.Equal(t, map[string]bool{"111": true, "222": true, "333": true}, ids)
	assert.Empty(t, ParseIDSet(""))
}

func TestHasAnyRole(t *testing.T) {
	wanted := ParseIDSet("900,901")
	assert.True(t, hasAnyRole([]string{"1", "901"}, wanted))
	assert.False(t, hasAnyRole([]string{"1", "2"}, wanted))
	assert.False(t, hasAnyRole(nil, wanted))
}

func TestProfileChanged(t *testing.T) {
	a, b := "a", "b"
	user := &models.User{ID: "1", Username: "nelly", GlobalName: "Nelly", Avatar: &a}

	assert.False(t, profileChanged(user, &models.SessionUser{ID: "1", Username: "nelly", GlobalName: "Nelly", Avatar: &a}))
	assert.True(t, profileChanged(user, &models.SessionUser{ID: "1", Username: "nelly2", GlobalName: "Nelly", Avatar: &a}))
	assert.True(t, profileChanged(user, &models.SessionUser{ID: "1", Username: "nelly", GlobalName: "Nelly", Avatar: &b}))
	assert.True(t, profileChanged(user, &models.SessionUser{ID: "1", Username: "nelly", GlobalName: "Nelly"}))
}
