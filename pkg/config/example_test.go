package config_test

import (
	"fmt"

	"github.com/ajitpratap0/memgraph/pkg/config"
)

func ExampleNewBuildConfig() {
	cfg := config.NewBuildConfig()
	cfg.Build.OutputPath = "memory.jsonl"
	cfg.Build.Profiles = []string{"WIDGET.yaml"}

	fmt.Println(cfg.Validate() == nil)
	fmt.Println(cfg.Build.ProfilesPattern)
	fmt.Println(cfg.Build.Relations)
	// Output:
	// true
	// *.{yaml,yml}
	// [inherits]
}
