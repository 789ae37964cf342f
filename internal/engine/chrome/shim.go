package chrome

// bindingName is the runtime binding the page posts web messages through.
const bindingName = "__webviewplusPost"

// bufferPathPrefix is the same-origin path shared buffers are served from.
const bufferPathPrefix = "/__webviewplus/buffers/"

// shimScript installs window.chrome.webview in every new document with the
// subset of the WebView2 script API the web app uses: postMessage, the
// "message" event and the "sharedbufferreceived" event. Deliveries run
// through one promise chain so buffers and strings arrive in posting order.
const shimScript = `(() => {
  if (window.__webviewplus) return;
  const target = new EventTarget();
  let chain = Promise.resolve();
  const enqueue = (fn) => { chain = chain.then(fn, fn); };
  const webview = {
    postMessage(message) {
      window.` + bindingName + `(JSON.stringify(message));
    },
    addEventListener: target.addEventListener.bind(target),
    removeEventListener: target.removeEventListener.bind(target),
    releaseBuffer() {},
  };
  window.chrome = window.chrome || {};
  window.chrome.webview = webview;
  Object.defineProperty(window, '__webviewplus', {
    value: Object.freeze({
      message(data) {
        enqueue(() => target.dispatchEvent(new MessageEvent('message', { data })));
      },
      buffer(id, additionalData) {
        enqueue(async () => {
          const res = await fetch('` + bufferPathPrefix + `' + id, { cache: 'no-store' });
          if (!res.ok) return;
          const buffer = await res.arrayBuffer();
          const ev = new Event('sharedbufferreceived');
          ev.additionalData = JSON.parse(additionalData);
          ev.getBuffer = () => buffer;
          target.dispatchEvent(ev);
        });
      },
    }),
  });
})();`
