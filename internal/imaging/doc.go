// Package imaging decodes and prepares the images submitted to the calculator.
//
// The package covers two concerns:
//
//   - Decoding: DecodeDataURI validates a data-URI, base64-decodes its payload
//     and opens the bytes as a raster image. Only JPEG, PNG and WEBP are
//     accepted. GIF and BMP decoders are registered on purpose so those formats
//     are recognized and rejected with a clear error instead of failing as
//     "unknown format".
//   - Preparation: PrepareForOCR normalizes a drawing (any background colour,
//     possibly transparent) into black ink on white, CropToInk trims it to the
//     strokes, and ForUpload shrinks oversized images before they are sent to a
//     remote vision model.
//
// # Coordinate System
//
// Images keep their original bounds. Resized and cropped images produced here
// always start at (0,0).
//
// # Error Handling
//
// Decode failures are returned as *apperr.Error values of KindValidation whose
// Message is safe to show to the caller. The underlying cause is wrapped in
// Err for logging.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use. Returned images are
// new values; inputs are never modified.
package imaging
