package driver

// Function expressions evaluated inside a frame by the CDP implementation.
// Each one returns null or false when its selector does not match.
const (
	existsScript = `function(sel, visible) {
	const el = document.querySelector(sel);
	if (!el) return false;
	if (!visible) return true;
	const rect = el.getBoundingClientRect();
	if (rect.width === 0 && rect.height === 0) return false;
	const style = window.getComputedStyle(el);
	return style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
}`

	clickScript = `function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	const opts = { bubbles: true, cancelable: true, view: window };
	el.dispatchEvent(new MouseEvent('mousedown', opts));
	el.dispatchEvent(new MouseEvent('mouseup', opts));
	el.click();
	return true;
}`

	focusScript = `function(sel) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.scrollIntoView({ block: 'center' });
	el.focus();
	if (typeof el.select === 'function') el.select();
	return true;
}`

	valueScript = `function(sel) {
	const el = document.querySelector(sel);
	if (!el) return null;
	return ('value' in el) ? String(el.value) : (el.textContent || '');
}`

	setValueScript = `function(sel, value) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.value = value;
	return true;
}`

	dispatchScript = `function(sel, events) {
	const el = document.querySelector(sel);
	if (!el) return false;
	for (const type of events) {
		const ev = type.startsWith('key')
			? new KeyboardEvent(type, { bubbles: true })
			: new Event(type, { bubbles: true });
		el.dispatchEvent(ev);
	}
	return true;
}`

	textScript = `function(sel) {
	const el = document.querySelector(sel);
	if (!el) return null;
	return (el.textContent || '').trim();
}`
)
