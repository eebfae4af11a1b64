package grounding

import "fmt"

// DefaultIntention is used when a describe call names no intention.
const DefaultIntention = "general"

// ReportSections are the headers of a UI STATE REPORT, in order.
var ReportSections = []string{
	"BLOCKERS",
	"PAGE_CONTEXT",
	"PRIMARY_INTERACTION",
	"OPEN_PANELS",
	"PANEL_LAYOUT",
	"PANEL_DETAILS",
	"VISIBLE_FIELDS_AND_VALUES",
	"KEY_ACTIONS",
	"NOTES",
}

const describeTemplate = `
Look at the screenshot closely. Reason silently.

- The intention below only tells you which details matter most.
- Report what is visible. Give no steps and no advice.

Write a UI STATE REPORT with EXACTLY the following sections, in this order.
Formatting:
- Every section header sits on its own line and ends with a colon.
- Every line inside a section starts with "- ".
- Quote visible UI text exactly. When text is unreadable, describe the element and where it is.

BLOCKERS:
- "none", or the overlay/modal/banner that blocks interaction.
- Name its dismiss/accept/close controls, with exact text when possible.

PAGE_CONTEXT:
- What this screen seems to be (site or app, and page type).
- What the visible area is for (form, results, settings, ...).

PRIMARY_INTERACTION:
- The main interactive region right now (form section, open panel, modal, result list).
- Anything that looks active (caret, highlighted field, selected item).

OPEN_PANELS:
- Every open panel/popup/widget (dropdown, modal, picker, calendar, sidebar, menu, tooltip).
- For each one:
  - TYPE: calendar / dropdown / modal / sidebar / menu / picker / tooltip / other
  - TITLE/HEADER: exact visible title in quotes, or "none"
  - ANCHOR: what it seems attached to (under a field, centered modal) when obvious
  - POSITION: where it sits on screen (center / left / right / below top bar / ...)

PANEL_LAYOUT:
- "- none" when no open panel has several panes, columns or sections.
- Otherwise, for the most prominent open panel:
  - LAYOUT: single / two-pane / multi-pane / split view / columns
  - PANE_TITLES: pane headers from left to right, exact text in quotes when possible
  - PANE_ROLES: what each pane holds (e.g. "left: month grid", "right: month grid")
  - REPEATED_ITEMS: labels, numbers or options that appear in more than one pane

PANEL_DETAILS:
- For the most prominent open panel ("- none" if nothing is open):
  - CONTENT: what it holds at a high level (grid, list, options)
  - CONTROLS: buttons/tabs/chips inside it, exact text when possible
  - NAVIGATION: prev/next/paging controls and where they sit relative to the panel header
  - CONFIRM: Apply/Done/OK/Close controls with exact text, or "none"
- When PANEL_LAYOUT is not "none", also give:
  - LEFT_PANE: what the left pane holds and its header text, if any
  - RIGHT_PANE: what the right pane holds and its header text, if any

VISIBLE_FIELDS_AND_VALUES:
- Important visible fields with their current values or placeholders, exact text in quotes.

KEY_ACTIONS:
- Prominent controls (primary buttons, top actions) with exact text and rough location.

NOTES:
- Ambiguities that could confuse targeting (duplicate labels, repeated numbers, look-alike buttons).
- Distinctive visual anchors (icons, shapes, placement), without coordinates.

Reminders:
- No coordinates.
- No tool instructions.
- No imperative verbs.
- Facts only; the screenshot is the source of truth.

INTENTION: %s
Now produce the UI STATE REPORT.
`

const locateTemplate = `
You locate UI elements on screenshots. Inspect the screenshot carefully.
You may reason silently, but your final output MUST be exactly one list: [xmin, ymin, xmax, ymax]
using coordinates normalized to 0-1000 on each axis. No other text.
If you cannot confidently find the target, output exactly: [-1, -1, -1, -1]
Target to locate: %s
`

// DescribePrompt returns the scene report prompt for intention.
func DescribePrompt(intention string) string {
	if intention == "" {
		intention = DefaultIntention
	}
	return fmt.Sprintf(describeTemplate, intention)
}

// LocatePrompt returns the strict box prompt for query.
func LocatePrompt(query string) string {
	return fmt.Sprintf(locateTemplate, query)
}
