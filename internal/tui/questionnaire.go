package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/wethinkt/go-panes/internal/dispatch"
	"github.com/wethinkt/go-panes/internal/i18n"
	"github.com/wethinkt/go-panes/internal/protocol"
	"github.com/wethinkt/go-panes/internal/tuilog"
)

// questionnaireDialog walks the user through a questionnaire one question at
// a time. Questions with options are answered by selection, the rest by
// free text.
type questionnaireDialog struct {
	target     protocol.Target
	toolCallID string
	questions  []protocol.Question
	answers    []protocol.QuestionAnswer

	current  int
	cursor   int
	selected map[int]bool
	text     textinput.Model
	keys     listKeys
}

func newQuestionnaire(target protocol.Target, toolCallID string, questions []protocol.Question) *questionnaireDialog {
	q := &questionnaireDialog{target: target, toolCallID: toolCallID, questions: questions, keys: defaultListKeys()}
	q.reset()
	return q
}

func (q *questionnaireDialog) reset() {
	q.cursor = 0
	q.selected = map[int]bool{}
	q.text = textinput.New()
	q.text.Placeholder = i18n.T("tui.questionnaire.placeholder", "Type an answer")
	q.text.Focus()
}

func (q *questionnaireDialog) question() protocol.Question {
	return q.questions[q.current]
}

func (q *questionnaireDialog) update(msg tea.KeyPressMsg, do doFunc) dialog {
	if len(q.questions) == 0 {
		return nil
	}
	if key.Matches(msg, q.keys.Cancel) {
		to, id := q.target, q.toolCallID
		do(func(d *dispatch.Dispatcher) {
			if err := d.QuestionnaireResponse(to, id, nil, true); err != nil {
				tuilog.Log.Debug("questionnaire cancel", "error", err)
			}
		})
		return nil
	}

	qu := q.question()
	if len(qu.Options) == 0 {
		if !key.Matches(msg, q.keys.Enter) {
			q.text, _ = q.text.Update(msg)
			return q
		}
		text := strings.TrimSpace(q.text.Value())
		if text == "" {
			return q
		}
		return q.answer(protocol.QuestionAnswer{ID: qu.ID, Text: text}, do)
	}

	switch {
	case key.Matches(msg, q.keys.Up):
		q.cursor = (q.cursor - 1 + len(qu.Options)) % len(qu.Options)
	case key.Matches(msg, q.keys.Down):
		q.cursor = (q.cursor + 1) % len(qu.Options)
	case key.Matches(msg, q.keys.Toggle):
		if qu.Multi {
			q.selected[q.cursor] = !q.selected[q.cursor]
		}
	case key.Matches(msg, q.keys.Enter):
		var picked []string
		if qu.Multi {
			for i, opt := range qu.Options {
				if q.selected[i] {
					picked = append(picked, opt)
				}
			}
		}
		if len(picked) == 0 {
			picked = []string{qu.Options[q.cursor]}
		}
		return q.answer(protocol.QuestionAnswer{ID: qu.ID, Selected: picked}, do)
	}
	return q
}

// answer records a and either moves on or submits everything.
func (q *questionnaireDialog) answer(a protocol.QuestionAnswer, do doFunc) dialog {
	q.answers = append(q.answers, a)
	if q.current+1 < len(q.questions) {
		q.current++
		q.reset()
		return q
	}
	data, err := json.Marshal(q.answers)
	if err != nil {
		tuilog.Log.Error("encoding questionnaire answers", "error", err)
		return nil
	}
	to, id := q.target, q.toolCallID
	do(func(d *dispatch.Dispatcher) {
		if err := d.QuestionnaireResponse(to, id, data, false); err != nil {
			tuilog.Log.Debug("questionnaire response", "error", err)
		}
	})
	return nil
}

func (q *questionnaireDialog) view(st Styles, width int) string {
	if len(q.questions) == 0 {
		return ""
	}
	qu := q.question()
	var b strings.Builder
	b.WriteString(st.Muted.Render(fmt.Sprintf("%d/%d", q.current+1, len(q.questions))))
	b.WriteString("\n")
	b.WriteString(st.ConfirmPrompt.Render(qu.Question))
	b.WriteString("\n\n")
	if len(qu.Options) == 0 {
		q.text.SetWidth(max(10, width-8))
		b.WriteString(q.text.View())
	} else {
		for i, opt := range qu.Options {
			mark := "  "
			if i == q.cursor {
				mark = st.Cursor.Render("> ")
			}
			if qu.Multi {
				box := "[ ] "
				if q.selected[i] {
					box = "[x] "
				}
				mark += box
			}
			b.WriteString(mark + truncate(opt, max(10, width-12)) + "\n")
		}
	}
	b.WriteString("\n")
	help := i18n.T("tui.questionnaire.help", "enter answer • esc cancel")
	if qu.Multi {
		help = i18n.T("tui.questionnaire.helpMulti", "space toggle • enter answer • esc cancel")
	}
	b.WriteString(st.Muted.Render(help))
	return b.String()
}
