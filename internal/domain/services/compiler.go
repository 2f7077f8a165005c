package services

import "github.com/ochairo/plugship/internal/domain/entities"

// ResolveCompilerSettings maps one declared language level onto both the
// source and target compatibility. Cross-version compilation is not supported.
func ResolveCompilerSettings(languageLevel string) entities.CompilerSettings {
	return entities.CompilerSettings{
		SourceCompatibility: languageLevel,
		TargetCompatibility: languageLevel,
	}
}

// CompilerArgs renders settings as javac arguments
func CompilerArgs(s entities.CompilerSettings) []string {
	return []string{"-source", s.SourceCompatibility, "-target", s.TargetCompatibility}
}
