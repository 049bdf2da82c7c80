package llms

import (
	"context"
	"testing"

	"github.com/Nephrolytics-ai/study-notes/pkg/config"
	"github.com/Nephrolytics-ai/study-notes/pkg/model"
	"github.com/stretchr/testify/suite"
)

type RegistrySuite struct {
	suite.Suite
	cfg config.Config
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.cfg = config.Default()
}

func (s *RegistrySuite) TestUnknownProvidersFail() {
	s.cfg.Transcription.Provider = "vosk"
	_, err := NewTranscriber(context.Background(), s.cfg)
	s.Require().Error(err)
	s.Contains(err.Error(), "unsupported transcription provider")

	s.cfg.Generation.Provider = "watson"
	_, err = NewTextGenerator(context.Background(), s.cfg)
	s.Require().Error(err)
	s.Contains(err.Error(), "unsupported generation provider")
}

func (s *RegistrySuite) TestMissingCredentialsFail() {
	s.cfg.Generation.Provider = config.ProviderAnthropic
	_, err := NewTextGenerator(context.Background(), s.cfg)
	s.Require().Error(err)

	s.cfg.Transcription.Provider = config.ProviderOpenAI
	_, err = NewTranscriber(context.Background(), s.cfg)
	s.Require().Error(err)
}

func (s *RegistrySuite) TestBuildsConfiguredProviders() {
	s.cfg.Credentials.OpenAIKey = "sk-test"
	s.cfg.Credentials.GeminiKey = "gm-test"

	transcriber, err := NewTranscriber(context.Background(), s.cfg)
	s.Require().NoError(err)
	s.NotNil(transcriber)

	s.cfg.Transcription.Provider = config.ProviderGemini
	transcriber, err = NewTranscriber(context.Background(), s.cfg)
	s.Require().NoError(err)
	s.NotNil(transcriber)

	for _, provider := range []string{config.ProviderOpenAI, config.ProviderGemini, config.ProviderOllama} {
		s.cfg.Generation.Provider = provider
		generator, err := NewTextGenerator(context.Background(), s.cfg)
		s.Require().NoError(err, provider)
		s.NotNil(generator, provider)
	}

	s.cfg.Generation.Provider = config.ProviderBedrock
	s.cfg.AWS.AccessKeyID = "AKIA"
	s.cfg.AWS.SecretAccessKey = "secret"
	generator, err := NewTextGenerator(context.Background(), s.cfg)
	s.Require().NoError(err)
	s.NotNil(generator)
}

func (s *RegistrySuite) TestGeneratorOptions() {
	temperature := 0.4
	s.cfg.Generation.Model = "m"
	s.cfg.Generation.Temperature = &temperature
	s.cfg.Generation.MaxTokens = 321

	resolved := model.ResolveGeneratorOpts(generatorOptions(s.cfg)...)
	s.Equal(321, resolved.ResolveMaxTokens())
	s.Require().NotNil(resolved.Model)
	s.Equal("m", *resolved.Model)
	s.Require().NotNil(resolved.Temperature)
	s.InDelta(0.4, *resolved.Temperature, 1e-9)
}

func (s *RegistrySuite) TestAudioOptionsCarryKeywords() {
	s.cfg.Transcription.Model = "whisper-1"
	s.cfg.Transcription.Keywords = []model.AudioKeyword{
		{Word: " Laplacian ", CommonMistypes: []string{"la plastian"}},
		{Word: ""},
	}

	opts := audioOptions(s.cfg)
	s.Equal("whisper-1", opts.Model)
	s.Empty(opts.Prompt)
	s.Equal([]model.AudioKeyword{{Word: "Laplacian", CommonMistypes: []string{"la plastian"}}}, opts.Keywords)
}
