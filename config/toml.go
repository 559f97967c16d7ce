package config

import (
	"bytes"
	_ "embed"
	"os"
	"text/template"

	cmtconfig "github.com/cometbft/cometbft/config"
)

var appTemplate *template.Template

func init() {
	var err error
	tmpl := template.New("appConfigFileTemplate")
	if appTemplate, err = tmpl.Parse(defaultAppTemplate); err != nil {
		panic(err)
	}
}

// WriteConfigFile renders the CometBFT config followed by the [app] section
// and writes both to configFilePath.
func WriteConfigFile(configFilePath string, config *Config) error {
	cmtconfig.WriteConfigFile(configFilePath, config.Config)

	var buffer bytes.Buffer
	if err := appTemplate.Execute(&buffer, config); err != nil {
		return err
	}
	f, err := os.OpenFile(configFilePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(buffer.Bytes())
	return err
}

// Note: any changes to the comments/variables/mapstructure
// must be reflected in the appropriate struct in config/config.go.
//
//go:embed app.toml.tpl
var defaultAppTemplate string
