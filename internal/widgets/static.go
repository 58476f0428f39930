package widgets

import "github.com/yanizio/threadstead/internal/widget"

const idWelcome = "welcome"

func welcome() widget.Widget {
	return widget.Widget{
		Config: widget.Config{
			ID:             idWelcome,
			Title:          "Welcome",
			Description:    "A short hello and pointers for getting started.",
			Category:       widget.CategoryUtility,
			Size:           widget.SizeMedium,
			DefaultEnabled: true,
		},
		Render: renderer(idWelcome),
	}
}
