package recorder

// captureScript installs document-level listeners in the capture phase so
// page handlers can't swallow events before they are seen. Events are
// buffered in window.__webmacroEvents until drained by the host.
//
// Selector paths walk from the target to the root: an element with an id
// contributes tag#id and ends the walk, anything else contributes
// tag:nth-of-type(n). Segments are joined with " > ". Replay depends on
// this exact shape.
const captureScript = `() => {
	if (window.__webmacroActive) {
		return;
	}
	window.__webmacroActive = true;
	window.__webmacroEvents = [];

	const cssPath = (el) => {
		if (!el || el.nodeType !== Node.ELEMENT_NODE) {
			return null;
		}
		const path = [];
		while (el && el.nodeType === Node.ELEMENT_NODE) {
			const tag = el.nodeName.toLowerCase();
			if (el.id) {
				path.unshift(tag + '#' + CSS.escape(el.id));
				break;
			}
			let nth = 1;
			let sib = el.previousElementSibling;
			while (sib) {
				if (sib.nodeName.toLowerCase() === tag) {
					nth++;
				}
				sib = sib.previousElementSibling;
			}
			path.unshift(tag + ':nth-of-type(' + nth + ')');
			el = el.parentElement;
		}
		return path.join(' > ');
	};

	const describe = (el) => {
		if (!el) {
			return { tag: null, inputType: null, checked: null };
		}
		return {
			tag: el.tagName ? el.tagName.toLowerCase() : null,
			inputType: el.type || null,
			checked: typeof el.checked === 'boolean' ? el.checked : null,
		};
	};

	const valueOf = (el) => (el && 'value' in el ? el.value : null);

	document.addEventListener('click', (evt) => {
		window.__webmacroEvents.push({
			type: 'click',
			selector: cssPath(evt.target),
			value: null,
			timestamp: Date.now(),
			button: evt.button,
			target: describe(evt.target),
		});
	}, true);

	for (const type of ['input', 'change']) {
		document.addEventListener(type, (evt) => {
			window.__webmacroEvents.push({
				type: type,
				selector: cssPath(evt.target),
				value: valueOf(evt.target),
				timestamp: Date.now(),
				target: describe(evt.target),
			});
		}, true);
	}
}`

// drainScript hands back the buffered events and empties the buffer in the
// same turn of the page's event loop, so each event is delivered once.
const drainScript = `() => {
	if (!window.__webmacroEvents) {
		return [];
	}
	const events = window.__webmacroEvents.slice();
	window.__webmacroEvents.length = 0;
	return events;
}`
