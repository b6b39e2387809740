package telegram

import (
	"fmt"
	"strings"
	"time"

	"mealmapp/internal/metrics"
	"mealmapp/internal/planner"
	"mealmapp/internal/recipe"
	"mealmapp/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatMenuMarkdown(menu *planner.Menu) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Weekly Menu* (from %s)\n\n", menu.WeekStart.Format(time.DateOnly)))

	for i, day := range menu.Grid.Days {
		date := menu.WeekStart.AddDate(0, 0, i)
		sb.WriteString(fmt.Sprintf("*%s*\n", date.Weekday()))
		var calories float64
		for _, slot := range day.Slots {
			if !slot.Filled() {
				sb.WriteString("• _empty_\n")
				continue
			}
			r := slot.Recipe
			kcal := r.ScaledCalories(r.PlannedServings)
			calories += kcal
			sb.WriteString(fmt.Sprintf("• %s", escape(r.Name)))
			if kcal > 0 {
				sb.WriteString(fmt.Sprintf(" (%.0f kcal)", kcal))
			}
			sb.WriteString("\n")
		}
		if calories > 0 {
			sb.WriteString(fmt.Sprintf("_Total: %.0f kcal_\n", calories))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatShoppingListMarkdown(list *shopping.ShoppingList) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	if len(list.Items) == 0 {
		sb.WriteString("_Nothing to buy_\n")
	}
	for _, item := range list.Items {
		switch {
		case item.Quantity > 0 && item.Unit != "":
			sb.WriteString(fmt.Sprintf("• %s: %g %s\n", escape(item.Name), item.Quantity, escape(item.Unit)))
		case item.Quantity > 0:
			sb.WriteString(fmt.Sprintf("• %s: %g\n", escape(item.Name), item.Quantity))
		default:
			sb.WriteString(fmt.Sprintf("• %s\n", escape(item.Name)))
		}
	}
	return sb.String()
}

func formatClippedRecipe(rec *recipe.Recipe) string {
	var sb strings.Builder
	sb.WriteString("✅ *Recipe Saved!*\n\n")
	sb.WriteString(fmt.Sprintf("*Title:* %s\n", escape(rec.Name)))
	if len(rec.MealTypes) > 0 {
		sb.WriteString(fmt.Sprintf("*Meals:* %s\n", escape(strings.Join(rec.MealTypes, ", "))))
	}
	if rec.Calories > 0 {
		sb.WriteString(fmt.Sprintf("*Calories:* %.0f per serving\n", rec.Calories))
	}
	sb.WriteString(fmt.Sprintf("*Ingredients:* %d", len(rec.Ingredients)))
	return sb.String()
}

func formatUsageMarkdown(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs), %d menus (%d partial)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Generations, d.PartialMenus))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
