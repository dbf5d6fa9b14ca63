package hometax

// Function expressions evaluated with driver.Frame.Call. They are exported
// so fakes can answer them by source.
const (
	// OuterHTMLScript returns the element's outerHTML, or null.
	OuterHTMLScript = `function(sel) {
	const el = document.querySelector(sel);
	return el ? el.outerHTML : null;
}`

	// MouseEventsScript replays the named mouse events on the element.
	MouseEventsScript = `function(sel, events) {
	const el = document.querySelector(sel);
	if (!el) return false;
	const opts = { bubbles: true, cancelable: true, view: window };
	for (const type of events) el.dispatchEvent(new MouseEvent(type, opts));
	return true;
}`

	// ClickNthScript clicks the idx-th match of sel, preferring its first
	// descendant matching inner when given.
	ClickNthScript = `function(sel, idx, inner) {
	const item = document.querySelectorAll(sel)[idx];
	if (!item) return false;
	const target = (inner && item.querySelector(inner)) || item;
	target.scrollIntoView({ block: 'center' });
	const opts = { bubbles: true, cancelable: true, view: window };
	for (const type of ['mousedown', 'mouseup', 'click']) target.dispatchEvent(new MouseEvent(type, opts));
	return true;
}`

	// RowSelectedScript reports whether the idx-th certificate row carries
	// the grid's selected state.
	RowSelectedScript = `function(sel, idx) {
	const row = document.querySelectorAll(sel)[idx];
	if (!row) return null;
	const selected = row.className.includes('selected') || row.querySelector('.MLjqui-grid-cell-selected') !== null;
	return { selected: selected, className: row.className };
}`

	// CheckedScript returns the checked state of a radio or checkbox, or null.
	CheckedScript = `function(sel) {
	const el = document.querySelector(sel);
	return el ? !!el.checked : null;
}`

	// ClickTextScript clicks the first tag element whose text contains text.
	ClickTextScript = `function(tag, text) {
	const el = Array.from(document.querySelectorAll(tag)).find(e => (e.textContent || '').includes(text));
	if (!el) return false;
	el.click();
	return true;
}`

	// ControlValueScript reads what the operator sees in a control: the
	// value of inputs, the selected label of selects, the text of anything else.
	ControlValueScript = `function(sel) {
	const el = document.querySelector(sel);
	if (!el) return null;
	const tag = (el.tagName || '').toLowerCase();
	if (tag === 'input' || tag === 'textarea') return el.value || '';
	if (tag === 'select') {
		const opt = el.options[el.selectedIndex];
		return opt ? (opt.textContent || opt.value || '') : (el.value || '');
	}
	return el.textContent || '';
}`

	// WatchClickScript attaches a one-time listener that flags a real user
	// click on the button.
	WatchClickScript = `function(sel) {
	const btn = document.querySelector(sel);
	if (!btn) return false;
	if (!btn.__taxgoWatched) {
		btn.__taxgoWatched = true;
		btn.addEventListener('click', () => { btn.dataset.userClicked = '1'; }, { once: true });
	}
	return true;
}`

	// ClickedScript reports whether WatchClickScript saw a click.
	ClickedScript = `function(sel) {
	const btn = document.querySelector(sel);
	return !!btn && btn.dataset.userClicked === '1';
}`
)
