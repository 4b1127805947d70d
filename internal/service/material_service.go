package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"study_platform_backend/internal/model"
	"study_platform_backend/internal/repository"
	"study_platform_backend/internal/util"
	"study_platform_backend/pkg/logger"
	"study_platform_backend/pkg/monitoring"
	"study_platform_backend/pkg/queue"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TaskGenerateMaterial = "material:generate"

	materialMaxTokens   = 16000
	materialTemperature = 0.7
)

type MaterialService struct {
	MaterialRepo *repository.MaterialRepository
	AttemptRepo  *repository.AttemptRepository
	TextRepo     *repository.TextRepository
	QuizRepo     *repository.QuizRepository
	AI           *AIService
	Queue        *queue.Queue
	Recommender  *RecommendationService

	sanitizer *bluemonday.Policy
}

func NewMaterialService(
	materialRepo *repository.MaterialRepository,
	attemptRepo *repository.AttemptRepository,
	textRepo *repository.TextRepository,
	quizRepo *repository.QuizRepository,
	ai *AIService,
	q *queue.Queue,
	recommender *RecommendationService,
) *MaterialService {
	return &MaterialService{
		MaterialRepo: materialRepo,
		AttemptRepo:  attemptRepo,
		TextRepo:     textRepo,
		QuizRepo:     quizRepo,
		AI:           ai,
		Queue:        q,
		Recommender:  recommender,
		sanitizer:    newMaterialSanitizer(),
	}
}

// newMaterialSanitizer 生成材料 HTML 的清洗策略
// 只允许展示性标签，class 和 data-section-id 用于前端交互跟踪
func newMaterialSanitizer() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"div", "span", "p", "br", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"table", "thead", "tbody", "tr", "th", "td",
		"strong", "em", "b", "i", "u", "code", "pre", "blockquote",
		"section", "article", "details", "summary",
	)
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("data-section-id", "data-card-index", "data-node-id").Globally()
	return p
}

type materialTaskPayload struct {
	RequestID uint `json:"request_id"`
}

// RegisterTasks 向队列注册材料生成任务和失败回调
func (s *MaterialService) RegisterTasks() {
	s.Queue.Register(TaskGenerateMaterial, s.handleGenerateMaterial)
	s.Queue.RegisterFailure(TaskGenerateMaterial, s.handleGenerationFailed)
}

// RequestGeneration 创建生成请求并入队，同类型有未完成请求时拒绝
func (s *MaterialService) RequestGeneration(ctx context.Context, userID, textID uint, materialType model.MaterialType) (*model.MaterialRequest, error) {
	if !materialType.Valid() {
		return nil, util.ErrInvalidMaterialType
	}

	text, err := s.TextRepo.FindByID(textID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTextNotFound
		}
		return nil, err
	}

	quiz, err := s.QuizRepo.FindByTextID(text.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	attempt, err := s.AttemptRepo.LatestByUserAndQuiz(userID, quiz.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	if _, err := s.MaterialRepo.FindPendingRequest(userID, textID, materialType); err == nil {
		return nil, util.ErrGenerationInProgress
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 请求时的推荐快照，之后据此统计推荐采纳率
	wasRecommended := false
	var followed *bool
	if rec, err := s.Recommender.Recommend(userID, textID); err == nil && rec.HasRecommendation {
		wasRecommended = rec.RecommendedType == materialType
		f := rec.RecommendedType == materialType
		followed = &f
	}

	req := &model.MaterialRequest{
		UserID:                 userID,
		TextID:                 textID,
		AttemptID:              attempt.ID,
		MaterialType:           materialType,
		Status:                 model.RequestPending,
		WasRecommended:         wasRecommended,
		FollowedRecommendation: followed,
	}
	if err := s.MaterialRepo.CreateRequest(req); err != nil {
		return nil, err
	}

	if _, err := s.Queue.Enqueue(ctx, TaskGenerateMaterial, materialTaskPayload{RequestID: req.ID}); err != nil {
		s.MaterialRepo.UpdateRequestStatus(req.ID, model.RequestFailed, "enqueue failed")
		return nil, err
	}
	return req, nil
}

func (s *MaterialService) handleGenerateMaterial(ctx context.Context, payload json.RawMessage) error {
	var p materialTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}

	req, err := s.MaterialRepo.FindRequestByID(p.RequestID)
	if err != nil {
		return err
	}
	if req.Status == model.RequestCompleted {
		return nil
	}

	if err := s.MaterialRepo.UpdateRequestStatus(req.ID, model.RequestProcessing, ""); err != nil {
		return err
	}

	text, err := s.TextRepo.FindByID(req.TextID)
	if err != nil {
		return err
	}
	attempt, err := s.AttemptRepo.FindByID(req.AttemptID)
	if err != nil {
		return err
	}
	quiz, err := s.QuizRepo.FindByID(attempt.QuizID)
	if err != nil {
		return err
	}

	weakTopics := attempt.GetWeakTopics()
	allTopics := quiz.TopicUniverse()

	start := time.Now()
	prompt := BuildMaterialPrompt(req.MaterialType, text, weakTopics, allTopics)

	raw, err := s.AI.Generate(ctx, materialSystemPrompt, prompt, materialTemperature, materialMaxTokens)
	if err != nil {
		monitoring.GenerationCounter.WithLabelValues(string(req.MaterialType), "error").Inc()
		return fmt.Errorf("material generation: %w", err)
	}

	content, kind, err := s.postProcess(req.MaterialType, raw)
	if err != nil {
		monitoring.GenerationCounter.WithLabelValues(string(req.MaterialType), "parse_error").Inc()
		return fmt.Errorf("material generation: %w", err)
	}

	elapsed := time.Since(start)
	now := time.Now()

	weakJSON, err := json.Marshal(weakTopics)
	if err != nil {
		return err
	}

	material := &model.Material{
		UserID:                req.UserID,
		TextID:                req.TextID,
		AttemptID:             req.AttemptID,
		MaterialType:          req.MaterialType,
		ContentKind:           kind,
		Content:               content,
		WeakTopics:            weakJSON,
		GeneratedAt:           &now,
		GenerationTimeSeconds: int(elapsed.Seconds()),
		ModelUsed:             s.AI.config.Model,
	}
	if err := s.MaterialRepo.Create(material); err != nil {
		return err
	}

	req.Status = model.RequestCompleted
	req.MaterialID = &material.ID
	if err := s.MaterialRepo.UpdateRequest(req); err != nil {
		return err
	}

	monitoring.GenerationCounter.WithLabelValues(string(req.MaterialType), "success").Inc()
	monitoring.GenerationDuration.WithLabelValues(string(req.MaterialType)).Observe(elapsed.Seconds())
	logger.Log.Info("Material generated",
		zap.Uint("request_id", req.ID),
		zap.Uint("material_id", material.ID),
		zap.String("type", string(req.MaterialType)),
		zap.Duration("elapsed", elapsed))
	return nil
}

func (s *MaterialService) handleGenerationFailed(ctx context.Context, payload json.RawMessage, taskErr error) {
	var p materialTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	if err := s.MaterialRepo.UpdateRequestStatus(p.RequestID, model.RequestFailed, taskErr.Error()); err != nil {
		logger.Log.Error("Failed to mark material request failed",
			zap.Uint("request_id", p.RequestID), zap.Error(err))
	}
}

// postProcess 决策树解析为 JSON 并校验结构，其余类型清洗 HTML
func (s *MaterialService) postProcess(materialType model.MaterialType, raw string) (string, model.ContentKind, error) {
	if materialType == model.MaterialDecisionTree {
		jsonObj, err := ExtractJSONObject(raw)
		if err != nil {
			return "", "", err
		}
		tree, err := ParseDecisionTree(jsonObj)
		if err != nil {
			return "", "", err
		}
		normalized, err := json.Marshal(tree)
		if err != nil {
			return "", "", err
		}
		return string(normalized), model.ContentTreeJSON, nil
	}

	html := s.sanitizer.Sanitize(StripMarkdownFence(raw))
	if html == "" {
		return "", "", errors.New("empty material content after sanitization")
	}
	return html, model.ContentHTML, nil
}

// DecisionTreeNode 决策树节点，叶子节点只有 conclusion
type DecisionTreeNode struct {
	ID         string             `json:"id"`
	Answer     string             `json:"answer,omitempty"`
	Question   string             `json:"question,omitempty"`
	Conclusion string             `json:"conclusion,omitempty"`
	Children   []DecisionTreeNode `json:"children,omitempty"`
}

type DecisionTree struct {
	Title string           `json:"title"`
	Root  DecisionTreeNode `json:"root"`
}

// ParseDecisionTree 解析并校验决策树 JSON
func ParseDecisionTree(raw string) (*DecisionTree, error) {
	var tree DecisionTree
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		return nil, fmt.Errorf("invalid decision tree JSON: %w", err)
	}
	if err := validateTreeNode(&tree.Root, 0); err != nil {
		return nil, err
	}
	return &tree, nil
}

func validateTreeNode(node *DecisionTreeNode, depth int) error {
	if depth > 20 {
		return errors.New("decision tree too deep")
	}
	if len(node.Children) == 0 {
		if node.Conclusion == "" && node.Question == "" {
			return errors.New("leaf node missing conclusion")
		}
		return nil
	}
	if node.Question == "" {
		return errors.New("branch node missing question")
	}
	for i := range node.Children {
		if err := validateTreeNode(&node.Children[i], depth+1); err != nil {
			return err
		}
	}
	return nil
}

// GetRequestStatus 前端轮询生成状态
func (s *MaterialService) GetRequestStatus(userID, requestID uint) (*model.MaterialRequest, error) {
	req, err := s.MaterialRepo.FindRequestByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrRequestNotFound
		}
		return nil, err
	}
	if req.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return req, nil
}

// GetMaterial 获取单个材料，只能看自己的
func (s *MaterialService) GetMaterial(userID, materialID uint) (*model.Material, error) {
	material, err := s.MaterialRepo.FindByID(materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrMaterialNotFound
		}
		return nil, err
	}
	if material.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return material, nil
}

// ListMaterials 某文本下用户的全部材料
func (s *MaterialService) ListMaterials(userID, textID uint) ([]model.Material, error) {
	return s.MaterialRepo.FindByUserAndText(userID, textID)
}
