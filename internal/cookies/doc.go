package cookies

// Package cookies resolves the credentials used to get past sign-in walls:
// an uploaded Netscape cookie jar at a well-known path, or credential stores
// of locally installed browsers. Detection and validation are best-effort
// and never fail hard; a missing source is a valid (empty) result.
