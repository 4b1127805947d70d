package service

import (
	"fmt"
	"strings"
	"study_platform_backend/internal/model"
)

const (
	quizSystemPrompt     = "你是一位严谨的学科测评出题专家，只输出合法 JSON，不输出任何解释性文字。"
	materialSystemPrompt = "你是一位个性化学习材料设计专家，擅长针对学生的薄弱知识点生成高质量的复习材料。"
)

// BuildQuizPrompt 基于文本全文生成 20 道单选题的提示词
func BuildQuizPrompt(text *model.Text, totalQuestions int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "请根据以下学术文本出 %d 道单项选择题。\n\n", totalQuestions)
	fmt.Fprintf(&b, "文本标题：%s\n", text.Title)
	fmt.Fprintf(&b, "文本主题：%s\n", text.Topic)
	fmt.Fprintf(&b, "难度定位：%s\n\n", text.Difficulty)
	b.WriteString("文本全文：\n")
	b.WriteString(text.Content)
	b.WriteString("\n\n要求：\n")
	b.WriteString("1. 每道题恰好 4 个选项，选项内容不带字母前缀。\n")
	b.WriteString("2. correct_answer 只能是 A、B、C、D 之一。\n")
	b.WriteString("3. topic 字段标注该题考查的具体知识点，用于后续弱项分析，同一知识点的题目使用完全一致的 topic 文本。\n")
	b.WriteString("4. explanation 字段简要说明正确答案的依据。\n")
	b.WriteString("5. 题目覆盖全文的主要知识点，由浅入深。\n\n")
	b.WriteString("严格按以下 JSON 数组格式输出，不要添加任何其他内容：\n")
	b.WriteString(`[{"question": "...", "options": ["...", "...", "...", "..."], "correct_answer": "A", "topic": "...", "explanation": "..."}]`)
	return b.String()
}

// topicSplit 把测验主题全集切分为弱项和复习两组
// 材料生成按约 75/25 的比例侧重弱项
func topicSplit(weakTopics, allTopics []string) (weak, review []string) {
	weakSet := make(map[string]bool, len(weakTopics))
	for _, t := range weakTopics {
		weakSet[t] = true
	}
	for _, t := range allTopics {
		if weakSet[t] {
			weak = append(weak, t)
		} else {
			review = append(review, t)
		}
	}
	return weak, review
}

// buildTopicSection 材料提示词共用的主题段落
func buildTopicSection(weakTopics, reviewTopics []string) string {
	var b strings.Builder
	b.WriteString("学生的薄弱知识点（材料的约 75% 篇幅必须围绕这些展开）：\n")
	if len(weakTopics) == 0 {
		b.WriteString("- 无明显薄弱项，材料做整体巩固\n")
	}
	for _, t := range weakTopics {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	b.WriteString("\n已掌握但需要巩固的知识点（约占 25% 篇幅）：\n")
	if len(reviewTopics) == 0 {
		b.WriteString("- 无\n")
	}
	for _, t := range reviewTopics {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	return b.String()
}

// BuildMaterialPrompt 按材料类型构造生成提示词
func BuildMaterialPrompt(materialType model.MaterialType, text *model.Text, weakTopics, allTopics []string) string {
	weak, review := topicSplit(weakTopics, allTopics)

	var b strings.Builder
	fmt.Fprintf(&b, "文本标题：%s\n\n", text.Title)
	b.WriteString(buildTopicSection(weak, review))
	b.WriteString("\n文本全文：\n")
	b.WriteString(text.Content)
	b.WriteString("\n\n")

	switch materialType {
	case model.MaterialFlashcard:
		b.WriteString("请生成一组学习卡片（至少 20 张），输出为一个完整的 HTML 片段：\n")
		b.WriteString("1. 每张卡片用 <div class=\"flashcard\" data-section-id=\"card-N\"> 包裹，正面 <div class=\"flashcard-front\">，背面 <div class=\"flashcard-back\">。\n")
		b.WriteString("2. 正面是问题或术语，背面是答案和简短解释。\n")
		b.WriteString("3. 只输出 HTML，不要输出 <html>、<head>、<body> 标签，也不要输出任何说明文字。\n")
	case model.MaterialDecisionTree:
		b.WriteString("请生成一棵帮助学生理清概念判断过程的决策树，输出为一个 JSON 对象：\n")
		b.WriteString(`{"title": "...", "root": {"id": "n1", "question": "...", "children": [{"id": "n2", "answer": "...", "question": "...", "children": [...]}]}}` + "\n")
		b.WriteString("1. 叶子节点用 \"conclusion\" 字段代替 \"question\"。\n")
		b.WriteString("2. 树深度至少 3 层，覆盖所有薄弱知识点。\n")
		b.WriteString("3. 只输出 JSON，不要输出任何其他内容。\n")
	case model.MaterialMindMap:
		b.WriteString("请生成一幅思维导图，输出为嵌套列表结构的 HTML 片段：\n")
		b.WriteString("1. 中心主题用 <div class=\"mindmap-root\" data-section-id=\"root\">，分支用嵌套的 <ul class=\"mindmap-branch\"> 和 <li class=\"mindmap-node\" data-section-id=\"node-N\">。\n")
		b.WriteString("2. 薄弱知识点所在分支加 class=\"weak-branch\" 并展开更多层级。\n")
		b.WriteString("3. 只输出 HTML 片段，不要输出任何说明文字。\n")
	case model.MaterialSummary:
		b.WriteString("请生成一份结构化摘要，输出为 HTML 片段：\n")
		b.WriteString("1. 用 <section data-section-id=\"section-N\"> 分节，每节一个 <h2> 标题。\n")
		b.WriteString("2. 薄弱知识点对应的小节加 class=\"weak-section\"，放在最前面并展开详细讲解和例子。\n")
		b.WriteString("3. 巩固性内容放在后面，简明扼要。\n")
		b.WriteString("4. 只输出 HTML 片段，不要输出任何说明文字。\n")
	}

	return b.String()
}
