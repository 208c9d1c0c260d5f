package task

import "github.com/hevcd/hevcd/internal/model"

// userMessages maps each failure category to actionable guidance. These
// strings are shown verbatim in the status API, so they never leak tool
// internals or raw subprocess output.
var userMessages = map[model.Category]string{
	model.CategoryBlocked:          "YouTube is blocking automated requests. Upload fresh browser cookies and try again.",
	model.CategoryForbidden:        "Access to this video is restricted. It may require sign-in; upload cookies from a logged-in browser session.",
	model.CategoryNotFound:         "Video not found. It may be private, deleted, or the URL may be wrong.",
	model.CategoryRateLimited:      "YouTube is rate limiting requests. Wait a few minutes and try again.",
	model.CategoryEmptyFile:        "The download produced an empty file. The video may be protected or region locked; try again later.",
	model.CategoryInvalidFile:      "The downloaded file is not a valid video. Try a different video or upload fresh cookies.",
	model.CategoryConversionFailed: "Video conversion failed. The downloaded file may be corrupted; try again.",
	model.CategoryTimeout:          "Processing timed out. The video may be too long; try a shorter one.",
	model.CategoryOther:            "Download failed. Check the URL and try again.",
}

// failureMessage resolves an error to its category and the user-facing
// message for that category.
func failureMessage(err error) (model.Category, string) {
	category := model.CategoryOf(err)
	msg, ok := userMessages[category]
	if !ok {
		msg = userMessages[model.CategoryOther]
	}
	return category, msg
}
