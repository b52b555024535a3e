// Package imaging decodes uploaded images, re-encodes derived images in the
// format of their source, and rasterizes the first page of PDF documents.
//
// Supported raster formats are PNG, JPEG and GIF. Anything else, SVG included,
// fails to decode and is reported as an invalid image.
package imaging
