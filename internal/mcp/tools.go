package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var analyzeToolDef = mcp.NewTool("meal_analyze",
	mcp.WithDescription("Upload a meal photo to the analysis service and return the normalized meal. "+
		"Set save=true to also add it to history."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to a JPEG image on the local filesystem")),
	mcp.WithBoolean("save", mcp.Description("Add the analyzed meal to history (default: false)")),
)

var normalizeToolDef = mcp.NewTool("meal_normalize",
	mcp.WithDescription("Convert a raw analysis payload into a meal. Malformed payloads yield an empty meal, never an error."),
	mcp.WithObject("payload", mcp.Required(), mcp.Description("Analysis service reply: {items:[{name,quantity,macros}], totalMacros, isHomogeneousFoodDetected}")),
	mcp.WithString("photo", mcp.Description("Photo reference stored on the meal")),
)

var swapToolDef = mcp.NewTool("meal_swap",
	mcp.WithDescription("Derive a lower-calorie variant of a meal. Only calories change; the result is not saved."),
	mcp.WithObject("meal", mcp.Description("Meal to swap (mutually exclusive with meal_id)")),
	mcp.WithString("meal_id", mcp.Description("Id of a saved meal (mutually exclusive with meal)")),
	mcp.WithString("mode", mcp.Description("Healthy (default), Protein, Carb or Custom"), mcp.Enum("Healthy", "Protein", "Carb", "Custom")),
	mcp.WithString("description", mcp.Description("Free-text note for Custom swaps")),
)

var saveToolDef = mcp.NewTool("history_save",
	mcp.WithDescription("Save a meal to history under a fresh id."),
	mcp.WithObject("meal", mcp.Required(), mcp.Description("Meal to save")),
)

var listToolDef = mcp.NewTool("history_list",
	mcp.WithDescription("List saved meals, most recent first."),
	mcp.WithNumber("limit", mcp.Description("Max items (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip (default: 0)")),
)

var getToolDef = mcp.NewTool("history_get",
	mcp.WithDescription("Fetch a saved meal by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Meal id")),
)

var clearToolDef = mcp.NewTool("history_clear",
	mcp.WithDescription("Remove every saved meal."),
)
