package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/platescan/platescan/internal/auth"
	"github.com/platescan/platescan/internal/meal"
	"github.com/platescan/platescan/internal/ops"
	"github.com/platescan/platescan/internal/profile"
)

var (
	// Styles for --format text
	mealHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	itemNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	caloriesStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	swapLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)
)

// renderText formats the values the CLI prints. Unknown types fall back to JSON.
func renderText(v any) (string, bool) {
	switch v := v.(type) {
	case meal.Meal:
		return renderMealText(&v), true
	case *meal.Meal:
		return renderMealText(v), true
	case *ops.AnalyzeOutput:
		s := renderMealText(&v.Meal)
		if v.RequestID != "" {
			s += "\n" + metaStyle.Render("request "+v.RequestID)
		}
		return s, true
	case *meal.SwapResult:
		var b strings.Builder
		b.WriteString(swapLabelStyle.Render(v.Label))
		b.WriteString("\n")
		if v.Description != "" {
			b.WriteString(metaStyle.Render(v.Description))
			b.WriteString("\n")
		}
		b.WriteString(renderMealText(&v.Meal))
		return b.String(), true
	case *auth.User:
		email := ""
		if v.Email != nil {
			email = *v.Email
		}
		return fmt.Sprintf("%s %s", mealHeaderStyle.Render(email), metaStyle.Render(v.UID)), true
	case *profile.Profile:
		return renderProfileText(v), true
	}
	return "", false
}

func renderMealText(m *meal.Meal) string {
	var b strings.Builder

	title := m.Name
	if title == "" {
		title = m.ID
	}
	b.WriteString(mealHeaderStyle.Render(title))
	b.WriteString("  ")
	b.WriteString(caloriesStyle.Render(formatNumber(m.TotalCalories) + " kcal"))
	b.WriteString("\n")

	t := m.TotalMacros
	b.WriteString(metaStyle.Render(fmt.Sprintf("protein %sg  carbs %sg  fat %sg  fiber %sg  sugar %sg  sodium %smg",
		formatNumber(t.Protein), formatNumber(t.Carbs), formatNumber(t.Fat),
		formatNumber(t.Fiber), formatNumber(t.Sugar), formatNumber(t.Sodium))))
	b.WriteString("\n")

	if len(m.Items) == 0 {
		b.WriteString(metaStyle.Render("(no items detected)"))
		return b.String()
	}
	for _, it := range m.Items {
		b.WriteString("  ")
		b.WriteString(itemNameStyle.Render(it.Name))
		if it.Quantity != "" {
			b.WriteString(" ")
			b.WriteString(metaStyle.Render("(" + it.Quantity + ")"))
		}
		b.WriteString("  ")
		b.WriteString(formatNumber(it.Calories) + " kcal")
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderProfileText(p *profile.Profile) string {
	if p.Skipped {
		return metaStyle.Render("onboarding skipped")
	}

	goals := make([]string, len(p.Goals))
	for i, g := range p.Goals {
		goals[i] = profile.GoalLabel(g)
	}

	lines := []string{
		mealHeaderStyle.Render("Goals") + "  " + orDash(strings.Join(goals, ", ")),
		mealHeaderStyle.Render("Preference") + "  " + orDash(p.Preference),
		mealHeaderStyle.Render("Meals per day") + "  " + strconv.Itoa(p.MealsPerDay),
		mealHeaderStyle.Render("Concerns") + "  " + orDash(strings.Join(p.Concerns, ", ")),
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatNumber rounds to one decimal and drops a trailing ".0".
func formatNumber(x float64) string {
	return strconv.FormatFloat(meal.Round1(x), 'f', -1, 64)
}
