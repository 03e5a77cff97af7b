package app

import (
	"github.com/labstack/echo/v4"

	"github.com/nfrund/campus/internal/domain"
	"github.com/nfrund/campus/internal/gateway"
	"github.com/nfrund/campus/internal/modules/community"
	"github.com/nfrund/campus/internal/modules/quiz"
	"github.com/nfrund/campus/internal/pubsub"
)

// Dependencies holds the core services that are required by the application's modules.
// This struct is passed from the server to wire up the modules.
type Dependencies struct {
	Subscriber pubsub.Subscriber
	Gateway    *gateway.Gateway

	Profiles    domain.ProfileRepository
	Messages    domain.MessageRepository
	Communities domain.CommunityRepository
	Exams       domain.ExamRepository
	Results     domain.ResultRepository

	HistoryLimit  int
	SendLimiter   echo.MiddlewareFunc
	SubmitLimiter echo.MiddlewareFunc
}

// communityDeps creates the dependency struct for the community module.
func communityDeps(deps Dependencies) community.Dependencies {
	return community.Dependencies{
		ServiceDependencies: community.ServiceDependencies{
			Profiles:     deps.Profiles,
			Messages:     deps.Messages,
			Communities:  deps.Communities,
			HistoryLimit: deps.HistoryLimit,
		},
		Subscriber:  deps.Subscriber,
		Gateway:     deps.Gateway,
		SendLimiter: deps.SendLimiter,
	}
}

// quizDeps creates the dependency struct for the quiz module.
func quizDeps(deps Dependencies) quiz.Dependencies {
	return quiz.Dependencies{
		Exams:         deps.Exams,
		Results:       deps.Results,
		Profiles:      deps.Profiles,
		SubmitLimiter: deps.SubmitLimiter,
	}
}
