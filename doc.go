// Package docexport renders a served web page, typically API documentation,
// to a PDF file with a headless browser.
//
// The export is a fixed sequence of steps: start a browser, open a page,
// navigate to the URL and wait until the network has been idle for a short
// window, print the page to PDF, write it to disk, and release the browser.
// The browser is released on every path out of the sequence.
//
// For the common case use the package-level helper:
//
//	res, err := docexport.Export(ctx, docexport.DefaultURL, docexport.DefaultOutput)
//
// Or configure an [Exporter] once and reuse it:
//
//	e, err := docexport.NewExporter(
//	    docexport.WithTimeout(time.Minute),
//	    docexport.WithPageConfig(docexport.PageConfig{Size: docexport.Letter}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := e.Export(ctx, "http://localhost:8000/redoc/", "api-docs.pdf")
//
// The steps are also available one at a time:
//
//	s, err := e.AcquireSession(ctx)
//	if err != nil {
//	    return err
//	}
//	defer s.Release()
//
//	p, err := s.OpenPage(ctx)
//	err = p.Navigate(ctx, url, docexport.NetworkIdle0)
//	res, err := p.ExportPDF(ctx, "out.pdf", nil)
//
// Each step fails with its own sentinel error, [ErrLaunch], [ErrResource],
// [ErrNavigation], [ErrRender] or [ErrFilesystem], which can be tested with
// [errors.Is]. A navigation that does not settle in time also matches
// [context.DeadlineExceeded].
//
// Three browser automation backends are available through [WithBackend]:
// chromedp (the default), go-rod and Playwright. Chrome or Chromium must be
// installed, or use [WithAutoDownload].
package docexport
