package client

import "strings"

// RenderDescriptor carries the icon and color a UI should use for a
// transaction category when the record itself sets none.
type RenderDescriptor struct {
	Icon  string
	Color string
}

var categoryDescriptors = map[string]RenderDescriptor{
	"food":          {Icon: "utensils", Color: "#e8915b"},
	"groceries":     {Icon: "shopping-cart", Color: "#e8915b"},
	"housing":       {Icon: "home", Color: "#5b7ee8"},
	"transport":     {Icon: "car", Color: "#5bc5e8"},
	"entertainment": {Icon: "film", Color: "#a65be8"},
	"health":        {Icon: "heart-pulse", Color: "#e85b7e"},
	"work":          {Icon: "briefcase", Color: "#5be88f"},
	"savings":       {Icon: "piggy-bank", Color: "#e8d15b"},
	"bills":         {Icon: "receipt", Color: "#8f8f8f"},
}

var defaultDescriptor = RenderDescriptor{Icon: "circle-dot", Color: "#b0b0b0"}

// DescriptorFor returns the render defaults for a category,
// case-insensitively, with a generic fallback.
func DescriptorFor(category string) RenderDescriptor {
	if d, ok := categoryDescriptors[strings.ToLower(strings.TrimSpace(category))]; ok {
		return d
	}
	return defaultDescriptor
}
