package app

import (
	"github.com/nfrund/campus/internal/module"
	"github.com/nfrund/campus/internal/modules/community"
	"github.com/nfrund/campus/internal/modules/quiz"
)

// NewModules creates and returns the list of all active modules for the application.
// This is the single source of truth for which features are enabled.
func NewModules(deps Dependencies) []module.Module {
	return []module.Module{
		community.New(communityDeps(deps)),
		quiz.New(quizDeps(deps)),
	}
}
