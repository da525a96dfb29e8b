// Package compose turns the three source buffers into one preview document.
//
// Document layout:
//
//	<head>
//	  <script data-livepen="instrument"> error and console.log hooks </script>
//	  <style> CSS buffer </style>
//	</head>
//	<body>
//	  HTML buffer
//	  <script> JS buffer </script>
//	</body>
//
// The instrumentation script reports through window.parent.postMessage using
// the protocol defined in package relay.
package compose
