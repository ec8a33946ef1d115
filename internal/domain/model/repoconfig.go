package model

// RepoConfig holds per-repository behavior read from the YAML file committed
// to the repository. The zero value disables every optional feature.
type RepoConfig struct {
	AddBinderLink   bool   `yaml:"addBinderLink"`
	BinderURLSuffix string `yaml:"binderUrlSuffix"`
	TriageLabel     string `yaml:"triageLabel"`
	RestartPhrase   string `yaml:"restartPhrase"`
}
