package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
	dir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.T().Chdir(s.dir)
	for _, key := range []string{
		"SETTINGS_FILE", "STUDY_CONFIG", "PORT", "LOG_LEVEL", "GENERATION_PROVIDER", "TRANSCRIPTION_PROVIDER",
		"GENERATION_MAX_TOKENS", "CORS_ORIGINS", "AWS_ACCESS_KEY_ID", "OPENAI_API_KEY",
		"CONCURRENT_GENERATION", "GENERATION_TEMPERATURE",
	} {
		s.T().Setenv(key, "")
		s.Require().NoError(os.Unsetenv(key))
	}
}

func (s *ConfigSuite) writeFile(name string, body string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(body), 0o600))
	return path
}

func (s *ConfigSuite) TestDefaults() {
	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal(8000, cfg.HTTP.Port)
	s.Equal(ProviderBedrock, cfg.Generation.Provider)
	s.Equal(ProviderOpenAI, cfg.Transcription.Provider)
	s.Equal(10000, cfg.Generation.MaxTokens)
	s.Equal(":8000", cfg.Addr())
	s.Equal(int64(500<<20), cfg.MaxUploadBytes())
}

func (s *ConfigSuite) TestYAMLThenEnvOverrides() {
	path := s.writeFile("study.yaml", `
http:
  port: 9000
generation:
  provider: Anthropic
  model: claude-sonnet-4
pipeline:
  concurrent_generation: false
`)
	s.T().Setenv("CONCURRENT_GENERATION", "true")
	s.T().Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal(9000, cfg.HTTP.Port)
	s.Equal(ProviderAnthropic, cfg.Generation.Provider)
	s.Equal("claude-sonnet-4", cfg.Generation.Model)
	s.True(cfg.Pipeline.ConcurrentGeneration)
	s.Equal([]string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
}

func (s *ConfigSuite) TestDotenvDoesNotOverrideEnvironment() {
	s.writeFile(".env", "OPENAI_API_KEY=from-file\nPORT=7000\n")
	s.T().Setenv("PORT", "7100")

	cfg, err := Load("")
	s.Require().NoError(err)
	s.Equal("from-file", cfg.Credentials.OpenAIKey)
	s.Equal(7100, cfg.HTTP.Port)
}

func (s *ConfigSuite) TestExplicitSettingsFileMustExist() {
	s.T().Setenv("SETTINGS_FILE", filepath.Join(s.dir, "missing.env"))

	_, err := Load("")
	s.Require().Error(err)
}

func (s *ConfigSuite) TestMissingYAMLFileFails() {
	_, err := Load(filepath.Join(s.dir, "nope.yaml"))
	s.Require().Error(err)
	s.Contains(err.Error(), "config file not found")
}

func (s *ConfigSuite) TestUnknownProviderRejected() {
	s.T().Setenv("GENERATION_PROVIDER", "watson")

	_, err := Load("")
	s.Require().Error(err)
	s.Contains(err.Error(), "generation.provider")
}

func (s *ConfigSuite) TestTemperatureOverride() {
	s.T().Setenv("GENERATION_TEMPERATURE", "0.25")

	cfg, err := Load("")
	s.Require().NoError(err)
	s.Require().NotNil(cfg.Generation.Temperature)
	s.InDelta(0.25, *cfg.Generation.Temperature, 1e-9)
}

func (s *ConfigSuite) TestTranscriptionKeywordsFromYAML() {
	path := s.writeFile("study.yaml", `
transcription:
  provider: gemini
  keywords:
    - word: eigenvalue
      common_mistypes: ["eigen value", "i can value"]
      definition: Scalar that scales an eigenvector.
    - word: Jacobian
`)

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal(ProviderGemini, cfg.Transcription.Provider)
	s.Require().Len(cfg.Transcription.Keywords, 2)
	s.Equal(model.AudioKeyword{
		Word:           "eigenvalue",
		CommonMistypes: []string{"eigen value", "i can value"},
		Definition:     "Scalar that scales an eigenvector.",
	}, cfg.Transcription.Keywords[0])
	s.Equal("Jacobian", cfg.Transcription.Keywords[1].Word)
}
