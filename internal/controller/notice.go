package controller

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"noticeboard/internal/feed"
	"noticeboard/internal/model"
)

// PostNotice sends the notice to the analyzer and persists it only after a
// successful analysis. The loading indicator is cleared on every exit.
// Concurrent posts are not serialized.
func (c *Controller) PostNotice(ctx context.Context, title, content string, isEvent bool) error {
	identity, _, ok := c.session.Current()
	if !ok {
		return ErrNotAuthenticated
	}

	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if blank(title, content) {
		c.view.Alert(msgFillAllFields)
		return ErrMissingFields
	}

	c.view.SetLoading(true)
	defer c.view.SetLoading(false)

	analysis, err := c.analyzer.Analyze(ctx, analyzerRequest(title, content, identity))
	if err != nil {
		if failure, ok := isAnalyzerFailure(err); ok {
			c.view.Alert(msgErrorPrefix + failure.Error())
			return errors.Join(ErrAnalysisFailed, err)
		}
		c.view.Alert(msgPostErrorPrefix + err.Error())
		return err
	}
	if analysis.Tags == nil {
		analysis.Tags = []string{}
	}

	c.view.ShowAnalysis(feed.NewPreview(analysis))

	notice := model.Notice{
		Title:          title,
		Content:        content,
		IsEvent:        isEvent,
		Category:       analysis.Category,
		Importance:     analysis.Importance,
		Tags:           analysis.Tags,
		CreatedBy:      identity.UID,
		CreatedByEmail: identity.Email,
	}
	if err := c.notices.Add(ctx, notice); err != nil {
		c.logger.Error("store notice failed", zap.Error(err))
		c.view.Alert(msgPostErrorPrefix + err.Error())
		return err
	}

	c.view.Alert(msgNoticePosted)
	c.view.ClearNoticeForm()
	c.view.HideAnalysis()
	return nil
}
