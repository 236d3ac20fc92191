package cdpport

import (
	_ "embed"
)

var (
	// visibleJS is a javascript snippet that returns true or false depending on if
	// the specified node's offsetWidth, offsetHeight or getClientRects().length is
	// not null.
	//go:embed js/visible.js
	visibleJS string

	// textJS is a javascript snippet that returns the innerText of the specified
	// element when rendered, and its textContent otherwise.
	//go:embed js/text.js
	textJS string

	// clickJS is a javascript snippet that scrolls the specified element into
	// view and dispatches a click from page script.
	//go:embed js/click.js
	clickJS string

	// busyJS is a javascript expression that evaluates to true while the
	// document is loading or any element is marked aria-busy.
	//go:embed js/busy.js
	busyJS string
)
