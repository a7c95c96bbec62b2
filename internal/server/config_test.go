package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/filebox")
	t.Setenv("FBX_TOKEN_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestValidateStartupConfig(t *testing.T) {
	validEnv(t)
	assert.NoError(t, ValidateStartupConfig())
}

func TestValidateStartupConfig_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FBX_TOKEN_SECRET", "")

	err := ValidateStartupConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "FBX_TOKEN_SECRET")
}

func TestValidateStartupConfig_ShortSecret(t *testing.T) {
	validEnv(t)
	t.Setenv("FBX_TOKEN_SECRET", "too-short")

	err := ValidateStartupConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FBX_TOKEN_SECRET")
}

func TestValidateStartupConfig_BadDatabaseScheme(t *testing.T) {
	validEnv(t)
	t.Setenv("DATABASE_URL", "mysql://u:p@localhost/filebox")

	err := ValidateStartupConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PostgreSQL")
}

func TestValidateStartupConfig_BadEnums(t *testing.T) {
	validEnv(t)
	t.Setenv("FBX_STORAGE_BACKEND", "ftp")
	t.Setenv("FBX_TYPE_DETECTION", "magic8ball")

	err := ValidateStartupConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FBX_STORAGE_BACKEND")
	assert.Contains(t, err.Error(), "FBX_TYPE_DETECTION")
}

func TestValidateStartupConfig_S3RequiresCredentials(t *testing.T) {
	validEnv(t)
	t.Setenv("FBX_STORAGE_BACKEND", "s3")

	err := ValidateStartupConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FBX_S3_ENDPOINT")
	assert.Contains(t, err.Error(), "FBX_S3_BUCKET")
}

func TestValidateStartupConfig_BadPort(t *testing.T) {
	validEnv(t)
	t.Setenv("FBX_ADDR", ":99999")

	err := ValidateStartupConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FBX_ADDR")
}

func TestValidateStartupConfig_BadUploadCap(t *testing.T) {
	validEnv(t)
	t.Setenv("FBX_MAX_UPLOAD_BYTES", "-5")

	err := ValidateStartupConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FBX_MAX_UPLOAD_BYTES")
}
