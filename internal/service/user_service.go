package service

import (
	"errors"
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/repository"
	"study_platform_backend/internal/util"

	"gorm.io/gorm"
)

type UserService struct {
	UserRepo    *repository.UserRepository
	ProfileRepo *repository.ProfileRepository
	AttemptRepo *repository.AttemptRepository
}

func NewUserService(
	userRepo *repository.UserRepository,
	profileRepo *repository.ProfileRepository,
	attemptRepo *repository.AttemptRepository,
) *UserService {
	return &UserService{
		UserRepo:    userRepo,
		ProfileRepo: profileRepo,
		AttemptRepo: attemptRepo,
	}
}

// ProfileView 学习档案加账号基本信息
type ProfileView struct {
	User    *model.User         `json:"user"`
	Profile *model.UserProfile  `json:"profile"`
	Stats   *model.AttemptStats `json:"stats"`
}

func (s *UserService) GetProfile(userID uint) (*ProfileView, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}

	profile, err := s.ProfileRepo.FindOrCreate(userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.attemptStats(userID)
	if err != nil {
		return nil, err
	}

	return &ProfileView{User: user, Profile: profile, Stats: stats}, nil
}

func (s *UserService) attemptStats(userID uint) (*model.AttemptStats, error) {
	attempts, err := s.AttemptRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	stats := &model.AttemptStats{TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		return stats, nil
	}

	quizzes := make(map[uint]bool)
	passedQuizzes := make(map[uint]bool)
	totalScore := 0.0
	totalSeconds := 0

	for _, a := range attempts {
		quizzes[a.QuizID] = true
		if a.Passed() {
			passedQuizzes[a.QuizID] = true
		}
		totalScore += a.Score
		totalSeconds += a.TimeSpentSeconds
	}

	stats.TextsStudied = len(quizzes)
	stats.TextsPassed = len(passedQuizzes)
	stats.AverageScore = totalScore / float64(len(attempts))
	stats.TotalTimeMinutes = totalSeconds / 60
	return stats, nil
}
