package main

import "flag"

type cliFlags struct {
	configPath string
}

func parseFlags() cliFlags {
	var flags cliFlags

	configPath := flag.String("config", "", "Path to the YAML/JSON configuration file. If not set, searches default locations.")
	configPathAlias := flag.String("c", "", "Alias for -config")
	flag.Parse()

	flags.configPath = *configPath
	if flags.configPath == "" {
		flags.configPath = *configPathAlias
	}

	return flags
}
